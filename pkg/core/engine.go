package core

// Engine describes an already-running database engine reachable through
// its command-line clients, typically inside a docker container.
type Engine struct {
	// Name is the short engine identifier ("mysql", "mariadb"). It keys
	// credentials and the schema snapshot directory.
	Name string

	// Container is the docker container name running the engine.
	Container string

	// Client is the SQL client binary inside the container.
	Client string

	// DumpTool is the structure-only dump binary inside the container.
	DumpTool string
}

// Credentials holds administrative credentials for one engine. The value
// is opaque to the pipeline: it is passed to the client subprocess and
// never logged.
type Credentials struct {
	RootPassword string
}
