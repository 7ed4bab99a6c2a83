package recorder

type Options struct {
	Dir       string
	Fps       float64
	Frequency int
	Name      string
	Session   string
	Vsync     bool
	Zip       bool
	// OnSaved is called with the archive path when a zipped recording
	// has been finalized.
	OnSaved func(path string)
}

type Meta struct {
	UserName string
}
