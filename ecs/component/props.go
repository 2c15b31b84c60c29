package component

// Props is the auxiliary data authored on a level descriptor.
type Props struct {
	Name   string
	Values map[string]any
}

var PropsComponent = NewComponent[Props]()
