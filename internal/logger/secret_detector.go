package logger

import (
	"regexp"
)

const (
	dsnPasswordPattern   = `([^/:]+):([^@/:]{3,})@` // user:password@host in DSNs and URLs
	queryPasswordPattern = `(?i)([?&]p=)([^&\s]+)`
	passwordPattern      = `(?i)(password|pwd)([\'\"\s:=]+)([^\s\'\",&]{3,})`
	basicAuthPattern     = `(?i)(authorization[\'\"\s:=]+basic\s+)([a-z0-9+/=]+)`
	tokenPattern         = `(?i)(authorization[\'\"\s:=]+(token|bearer)\s+)([a-z0-9._\-+/=]+)`
)

var (
	dsnPasswordRegexp   = regexp.MustCompile(dsnPasswordPattern)
	queryPasswordRegexp = regexp.MustCompile(queryPasswordPattern)
	passwordRegexp      = regexp.MustCompile(passwordPattern)
	basicAuthRegexp     = regexp.MustCompile(basicAuthPattern)
	tokenRegexp         = regexp.MustCompile(tokenPattern)
)

type secretmasker string

func (s secretmasker) maskDsnPassword() secretmasker {
	return secretmasker(dsnPasswordRegexp.ReplaceAllString(s.String(), "$1:****@"))
}

func (s secretmasker) maskQueryPassword() secretmasker {
	return secretmasker(queryPasswordRegexp.ReplaceAllString(s.String(), "${1}****"))
}

func (s secretmasker) maskPassword() secretmasker {
	return secretmasker(passwordRegexp.ReplaceAllString(s.String(), "$1${2}****"))
}

func (s secretmasker) maskBasicAuth() secretmasker {
	return secretmasker(basicAuthRegexp.ReplaceAllString(s.String(), "${1}****"))
}

func (s secretmasker) maskToken() secretmasker {
	return secretmasker(tokenRegexp.ReplaceAllString(s.String(), "${1}****"))
}

func (s secretmasker) String() string {
	return string(s)
}

// MaskSecrets masks credentials in text (exported for use by main package and secret masking logger)
func MaskSecrets(text string) string {
	return secretmasker(text).
		maskDsnPassword().
		maskQueryPassword().
		maskPassword().
		maskBasicAuth().
		maskToken().
		String()
}
