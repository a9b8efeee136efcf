package hcl

// fileRoot mirrors the top level of a settings file.
type fileRoot struct {
	ListenAddr          *string         `hcl:"listen_addr,optional"`
	LogLevel            *string         `hcl:"log_level,optional"`
	LogFormat           *string         `hcl:"log_format,optional"`
	HandlerTimeout      *string         `hcl:"handler_timeout,optional"`
	MetricsNamespace    *string         `hcl:"metrics_namespace,optional"`
	Builtins            []string        `hcl:"builtins,optional"`
	UnrestrictedImports *bool           `hcl:"unrestricted_imports,optional"`
	LuaPoolSize         *int            `hcl:"lua_pool_size,optional"`
	Directory           *directoryBlock `hcl:"directory,block"`
	Manifest            *manifestBlock  `hcl:"manifest,block"`
}

type directoryBlock struct {
	Path string `hcl:"path"`
}

type manifestBlock struct {
	Path      string  `hcl:"path"`
	OutputDir *string `hcl:"output_dir,optional"`
}
