package config

type SecurityConfig interface {
	GetMinPasswordLength() int
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetMinPasswordLength is the local shape check only; the Auth API owns the real policy.
func (Security) GetMinPasswordLength() int {
	return 1
}
