package cache

import "fmt"

// ShareViewKey holds the cached share view of token for one cache generation.
func ShareViewKey(token, generation string) string {
	return fmt.Sprintf("share:%s:%s", token, generation)
}

// ShareGenerationKey holds the current cache generation of a share token.
// Replacing it orphans every view cached under the previous generation.
func ShareGenerationKey(token string) string {
	return fmt.Sprintf("sharegen:%s", token)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
