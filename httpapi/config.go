package httpapi

// Config defines the HTTP watch endpoint settings.
type Config struct {
	Addr string
	// BasePath mounts every route under a prefix, e.g. behind a reverse proxy.
	BasePath string
}
