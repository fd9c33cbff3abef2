package commons

import "os"

// IsCIEnv reports whether the current environment is a known ci system.
func IsCIEnv() bool {
	return os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != ""
}
