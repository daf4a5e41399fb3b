package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
)

func TestValidateProjectName(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr string
	}{
		{name: "simple", value: "openSUSE:Factory"},
		{name: "home project", value: "home:user:branches:devel:tools"},
		{name: "plus and dash", value: "devel:languages:c++-tools"},
		{name: "empty", value: "", wantErr: "project name is empty"},
		{name: "leading colon", value: ":Factory", wantErr: "must start with a letter or digit"},
		{name: "double colon", value: "home::user", wantErr: "empty ':' component"},
		{name: "trailing colon", value: "home:user:", wantErr: "empty ':' component"},
		{name: "slash", value: "home/user", wantErr: "invalid character"},
		{name: "space", value: "home user", wantErr: "invalid character"},
		{name: "too long", value: strings.Repeat("a", 201), wantErr: "longer than 200"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProjectName(tt.value)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
			assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
		})
	}
}

func TestValidatePackageName(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "simple", value: "gcc"},
		{name: "versioned", value: "python3.12"},
		{name: "multibuild flavor", value: "systemd:mini"},
		{name: "reserved project", value: "_project"},
		{name: "reserved patchinfo suffix", value: "_patchinfo.1234"},
		{name: "reserved product flavor", value: "_product:openSUSE-release"},
		{name: "underscore", value: "_foo", wantErr: true},
		{name: "reserved prefix glued", value: "_projectx", wantErr: true},
		{name: "dot start", value: ".hidden", wantErr: true},
		{name: "empty", value: "", wantErr: true},
		{name: "slash", value: "a/b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePackageName(tt.value)
			if tt.wantErr {
				var builder *errbuilder.ErrBuilder
				assert.True(t, errors.As(err, &builder))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateFileName(t *testing.T) {
	assert.NoError(t, ValidateFileName("foo.spec"))
	assert.NoError(t, ValidateFileName("_service"))
	assert.Error(t, ValidateFileName(""))
	assert.Error(t, ValidateFileName(".."))
	assert.Error(t, ValidateFileName("../etc/passwd"))
	assert.Error(t, ValidateFileName(" padded"))
}
