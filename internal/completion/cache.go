package completion

// CacheKey is the Redis key holding the last full evaluation of a client.
// Anything that changes the client's documents must delete it.
func CacheKey(clientID string) string {
	return "completion:" + clientID
}
