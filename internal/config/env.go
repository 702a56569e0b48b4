package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// envFiles are read in order; later files override earlier ones.
var envFiles = []string{".env", ".env.local"}

// exposedEnvKeys are the process.env keys the demo config reads.
var exposedEnvKeys = []string{"API_KEY", "ROOM_NAME", "ROOM_PASSWORD"}

// ExposedEnvPrefix marks additional keys demo code may read.
const ExposedEnvPrefix = "DEMO_"

// LoadEnv collects the environment exposed to demo code. Values come from
// .env files in dir, then the process environment (which wins), then the
// config file's env map (which wins over both). Only API_KEY, ROOM_NAME,
// ROOM_PASSWORD and DEMO_* keys are returned.
func LoadEnv(dir string, extra map[string]string) (map[string]string, error) {
	fileValues := map[string]string{}
	for _, name := range envFiles {
		path := filepath.Join(dir, name)
		values, err := godotenv.Read(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		for k, v := range values {
			fileValues[k] = v
		}
	}

	out := map[string]string{}
	for k, v := range fileValues {
		if isExposedKey(k) {
			out[k] = v
		}
	}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && isExposedKey(k) {
			out[k] = v
		}
	}
	for k, v := range extra {
		out[k] = v
	}
	return out, nil
}

func isExposedKey(key string) bool {
	if strings.HasPrefix(key, ExposedEnvPrefix) {
		return true
	}
	for _, k := range exposedEnvKeys {
		if k == key {
			return true
		}
	}
	return false
}
