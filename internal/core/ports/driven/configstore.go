package driven

// ConfigStore holds flat, dot-separated settings such as
// "research.max_steps". Typed getters return the zero value when a key is
// missing or holds the wrong type; use Get to tell the two apart.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int

	// GetFloat widens integers, since "threshold = 0" decodes as one.
	GetFloat(key string) float64

	// Set stores value. Persistent stores write through before returning.
	Set(key string, value any) error

	// Keys lists every stored key, sorted.
	Keys() []string

	// Path locates the backing file, for display.
	Path() string
}
