package bridge

// view adapts the tracker and the window offsets to the lighting
// projector. Its methods run with the bridge mutex held by the tick
// loop; they must not lock.
type view struct {
	b *Bridge
}

func (v view) LayerCount() int  { return v.b.tracker.LayerCount() }
func (v view) ColumnCount() int { return v.b.tracker.ColumnCount() }

func (v view) ClipExists(column, layer int) bool {
	return v.b.tracker.ClipExists(column, layer)
}

func (v view) ClipConnected(column, layer int) bool {
	return v.b.tracker.ClipConnected(column, layer)
}

func (v view) ConnectedColumn() int { return v.b.tracker.ConnectedColumn() }
func (v view) LayerOffset() int     { return v.b.layerOffset }
func (v view) ColumnOffset() int    { return v.b.columnOffset }
