package handler

// Route type
type Route string

const (
	// RouteSave take a new snapshot
	RouteSave Route = "save"
	// RouteLoad restore from a snapshot
	RouteLoad Route = "load"
	// RouteList list the available snapshots
	RouteList Route = "list"
	// RouteStatus report the current snapshot state
	RouteStatus Route = "status"
	// RoutePut put a key into the node's kv store
	RoutePut Route = "put"
	// RouteGet get a key from the node's kv store
	RouteGet Route = "get"
)
