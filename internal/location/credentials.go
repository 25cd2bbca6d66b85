package location

import (
	"fmt"
	"os"
	"strings"
)

// Credentials carries externally supplied connection information.
// Resolvers read the fields that apply to them and ignore the rest.
type Credentials struct {
	User     string `yaml:"user,omitempty" json:"user,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
	Token    string `yaml:"token,omitempty" json:"token,omitempty"`

	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`
	SessionToken    string `yaml:"session_token,omitempty" json:"session_token,omitempty"`
	Region          string `yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`

	CredentialsFile string `yaml:"credentials_file,omitempty" json:"credentials_file,omitempty"`
	APIKey          string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
}

// IsZero reports whether no field is set
func (c *Credentials) IsZero() bool {
	return c == nil || *c == Credentials{}
}

// String describes the credentials with secrets redacted
func (c *Credentials) String() string {
	if c.IsZero() {
		return "<none>"
	}
	var parts []string
	add := func(k, v string, secret bool) {
		if v == "" {
			return
		}
		if secret {
			v = "***"
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, v))
	}
	add("user", c.User, false)
	add("password", c.Password, true)
	add("token", c.Token, true)
	add("access_key_id", c.AccessKeyID, false)
	add("secret_access_key", c.SecretAccessKey, true)
	add("session_token", c.SessionToken, true)
	add("region", c.Region, false)
	add("endpoint", c.Endpoint, false)
	add("credentials_file", c.CredentialsFile, false)
	add("api_key", c.APIKey, true)
	return "{" + strings.Join(parts, " ") + "}"
}

// CredentialsFromEnv reads credentials from IMGREADER_* environment
// variables. It returns nil when none are set.
func CredentialsFromEnv() *Credentials {
	c := &Credentials{
		User:            os.Getenv("IMGREADER_USER"),
		Password:        os.Getenv("IMGREADER_PASSWORD"),
		Token:           os.Getenv("IMGREADER_TOKEN"),
		AccessKeyID:     os.Getenv("IMGREADER_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("IMGREADER_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("IMGREADER_SESSION_TOKEN"),
		Region:          os.Getenv("IMGREADER_REGION"),
		Endpoint:        os.Getenv("IMGREADER_ENDPOINT"),
		CredentialsFile: os.Getenv("IMGREADER_CREDENTIALS_FILE"),
		APIKey:          os.Getenv("IMGREADER_API_KEY"),
	}
	if c.IsZero() {
		return nil
	}
	return c
}
