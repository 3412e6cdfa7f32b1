package stan

// Program is a resolved Stan program: the source file plus the compile
// options it must be built with.
type Program struct {
	// Name is the identifier used in configuration files, e.g. "model.stan".
	Name string
	// Path is the absolute path of the .stan source.
	Path string
	// CppOptions are passed to make as KEY=VALUE pairs.
	CppOptions map[string]any
	// StancOptions are passed to stanc through STANCFLAGS.
	StancOptions map[string]any
}
