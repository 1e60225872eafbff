package dictionary

// ConnectionCost is the dense forward-by-backward cost matrix: the cost of
// following a morpheme whose right-context is r with one whose left-context
// is l.
type ConnectionCost struct {
	ForwardSize  int
	BackwardSize int
	Costs        []int32 // row-major by forward id: Costs[BackwardSize*r+l]
}

// NewConnectionCost allocates a zeroed matrix of the given dimensions.
func NewConnectionCost(forwardSize, backwardSize int) *ConnectionCost {
	return &ConnectionCost{
		ForwardSize:  forwardSize,
		BackwardSize: backwardSize,
		Costs:        make([]int32, forwardSize*backwardSize),
	}
}

// Set records the cost for (forwardID, backwardID), as read from matrix.def.
func (c *ConnectionCost) Set(forwardID, backwardID int, cost int32) {
	c.Costs[c.BackwardSize*forwardID+backwardID] = cost
}

// Cost returns the connection cost of a morpheme with right-context rightID
// followed by one with left-context leftID.
func (c *ConnectionCost) Cost(rightID, leftID int) int32 {
	return c.Costs[c.BackwardSize*rightID+leftID]
}
