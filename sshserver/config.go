package sshserver

// Config defines SSH server settings.
type Config struct {
	Addr        string
	HostKeyPath string
	// AuthorizedKeys restricts logins to the listed keys. Empty allows
	// anonymous viewers.
	AuthorizedKeys string
}
