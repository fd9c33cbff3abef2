package binary

type Option func(b *Binary)

// WithDirectory sets the directory binaries are installed into, ./bin by default.
func WithDirectory(dir string) Option {
	return func(b *Binary) {
		b.template.Directory = dir
	}
}

// WithPlatform overrides the conda platform tag used to resolve templates,
// e.g. to provision a binary for a different machine.
func WithPlatform(tag string) Option {
	return func(b *Binary) {
		b.template.Platform = tag
	}
}

// WithVersionCmd allows customizing the command that is run to check the
// version of the binary. The format string should contain a single `%s`
// placeholder that will be replaced with the binary's path.
//
// If the format string is SkipVersionCheck, the version check will be disabled.
func WithVersionCmd(format string) Option {
	return func(b *Binary) {
		b.versioncmd = format
	}
}
