package resolume

// Snapshot is a JSON-friendly copy of the tracked state, for debug
// introspection. It shares nothing with the live tree.
type Snapshot struct {
	CurrentDeck     int             `json:"currentDeck"`
	SelectedLayer   int             `json:"selectedLayer"`
	SelectedColumn  int             `json:"selectedColumn"`
	ConnectedColumn int             `json:"connectedColumn"`
	ColumnCount     int             `json:"columnCount"`
	Layers          []LayerSnapshot `json:"layers"`
}

type LayerSnapshot struct {
	ID            int            `json:"id"`
	ConnectedClip int            `json:"connectedClip"`
	Clips         []ClipSnapshot `json:"clips"`
}

type ClipSnapshot struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Playing bool   `json:"playing"`
}

func (t *Tracker) Snapshot() Snapshot {
	s := Snapshot{
		CurrentDeck:     t.currentDeck,
		SelectedLayer:   t.selectedLayer,
		SelectedColumn:  t.selectedColumn,
		ConnectedColumn: t.connectedColumn,
		ColumnCount:     t.ColumnCount(),
	}
	for _, l := range t.layers {
		ls := LayerSnapshot{
			ID:            l.ID,
			ConnectedClip: t.ConnectedClip(l.ID),
		}
		for _, c := range l.Clips {
			ls.Clips = append(ls.Clips, ClipSnapshot{
				ID:      c.ID,
				Name:    c.Name,
				Playing: c.Playing(),
			})
		}
		s.Layers = append(s.Layers, ls)
	}
	return s
}
