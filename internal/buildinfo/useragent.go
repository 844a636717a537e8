package buildinfo

import "fmt"

// UserAgent returns the User-Agent string for outbound HTTP requests.
func UserAgent() string {
	return fmt.Sprintf("gupshup/%s", Version)
}
