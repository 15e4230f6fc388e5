package goinflux

import (
	"errors"
	"os"
	path "path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	toml "github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	// connectionsFileName is the file LoadConnectionConfig reads from the config directory.
	connectionsFileName   = "connections.toml"
	defaultConnectionName = "default"
	defaultConfigDirName  = ".goinflux"
)

var errUnknownParameter = errors.New("unknown parameter")

// LoadConnectionConfig returns the connection config selected from the toml file.
// By default, GOINFLUX_HOME (the directory of connections.toml) is ~/.goinflux
// and GOINFLUX_DEFAULT_CONNECTION_NAME (the section name) is 'default'.
func LoadConnectionConfig() (*Config, error) {
	name := getConnectionName(os.Getenv("GOINFLUX_DEFAULT_CONNECTION_NAME"))
	configDir, err := getConfigDir(os.Getenv("GOINFLUX_HOME"))
	if err != nil {
		return nil, err
	}
	tomlFilePath := path.Join(configDir, connectionsFileName)
	if err = validateFilePermission(tomlFilePath); err != nil {
		return nil, err
	}
	tomlInfo := make(map[string]interface{})
	if _, err = toml.DecodeFile(tomlFilePath, &tomlInfo); err != nil {
		return nil, &InfluxError{
			Number:      ErrCodeConfigFileParsingFailed,
			Message:     errMsgFailedToParseConfigFile,
			MessageArgs: []interface{}{tomlFilePath, "", err},
		}
	}
	section, exist := tomlInfo[name]
	if !exist {
		return nil, &InfluxError{
			Number:      ErrCodeFailedToFindConnectionInFile,
			Message:     errMsgFailedToFindConnection,
			MessageArgs: []interface{}{name, tomlFilePath},
		}
	}
	connection, ok := section.(map[string]interface{})
	if !ok {
		return nil, &InfluxError{
			Number:      ErrCodeConfigFileParsingFailed,
			Message:     errMsgFailedToParseConfigFile,
			MessageArgs: []interface{}{tomlFilePath, name, section},
		}
	}
	logger.Debugf("loading connection %q from %v", name, tomlFilePath)
	return parseConnection(connection)
}

// LoadConfigFile reads a single connection from a .toml, .yaml or .yml file
// whose top-level keys are connection parameters.
func LoadConfigFile(filePath string) (*Config, error) {
	if err := validateFilePermission(filePath); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	connection := make(map[string]interface{})
	switch ext := strings.ToLower(path.Ext(filePath)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &connection)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &connection)
	default:
		return nil, errInvalidConfig("unsupported config file extension " + strconv.Quote(ext))
	}
	if err != nil {
		return nil, &InfluxError{
			Number:      ErrCodeConfigFileParsingFailed,
			Message:     errMsgFailedToParseConfigFile,
			MessageArgs: []interface{}{filePath, "", err},
		}
	}
	return parseConnection(connection)
}

func parseConnection(connection map[string]interface{}) (*Config, error) {
	cfg := &Config{}
	for key, value := range connection {
		if err := parseConnectionParam(cfg, key, value); err != nil {
			return nil, err
		}
	}
	if err := cfg.fillMissingConfigParameters(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseInt(i interface{}) (int, error) {
	switch v := i.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	}
	return 0, errors.New("failed to parse the value to integer")
}

func parseBool(i interface{}) (bool, error) {
	switch v := i.(type) {
	case bool:
		return v, nil
	case string:
		vv, err := strconv.ParseBool(v)
		if err != nil {
			return false, errors.New("failed to parse the value to boolean")
		}
		return vv, nil
	}
	return false, errors.New("failed to parse the value to boolean")
}

// parseDuration accepts Go duration strings ("1m30s") and whole seconds.
func parseDuration(i interface{}) (time.Duration, error) {
	v, ok := i.(string)
	if !ok {
		num, err := parseInt(i)
		if err != nil {
			return 0, err
		}
		return time.Duration(num) * time.Second, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	t, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(t) * time.Second, nil
}

func parseString(i interface{}) (string, error) {
	v, ok := i.(string)
	if !ok {
		return "", errors.New("failed to convert the value to string")
	}
	return v, nil
}

func getConfigDir(dirPath string) (string, error) {
	if len(dirPath) != 0 {
		if path.IsAbs(dirPath) {
			return dirPath, nil
		}
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dirPath = path.Join(homeDir, defaultConfigDirName)
	}
	return path.Abs(dirPath)
}

func getConnectionName(name string) string {
	if len(name) != 0 {
		return name
	}
	return defaultConnectionName
}

// validateFilePermission rejects files that group or others can access.
func validateFilePermission(filePath string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return err
	}
	if permission := fileInfo.Mode().Perm(); permission&0o077 != 0 {
		return errInvalidConfig("file " + filePath + " is accessible by other users, permissions " + permission.String())
	}
	return nil
}
