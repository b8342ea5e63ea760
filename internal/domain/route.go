package domain

// RoutePreference holds the routing options a caller may set.
// The zero value routes normally in the given address order.
type RoutePreference struct {
	AvoidHighways bool
	AvoidTolls    bool
	Reverse       bool
}

// Polyline is the ordered vertex sequence of a driving path.
type Polyline []Coordinates

// Represents a user-entered stop as resolved by a routing provider.
// VertexIndex points into the route polyline where the stop lies.
type RouteStop struct {
	Address     string
	Location    Coordinates
	VertexIndex int
}

// Represents a planned driving route.
// Stops are in travel order; the first is the origin and the last the destination.
type Route struct {
	Polyline Polyline
	Stops    []RouteStop
}
