package types

import "fmt"

// Credentials identify a user on one OBS instance.
type Credentials struct {
	APIURL   string
	Username string
	Password string
}

func (c Credentials) String() string {
	password := ""
	if c.Password != "" {
		password = "***"
	}
	return fmt.Sprintf("Credentials{APIURL:%s Username:%s Password:%s}", c.APIURL, c.Username, password)
}

func (c Credentials) GoString() string {
	return c.String()
}
