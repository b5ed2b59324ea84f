package models

// Frame represents one decoded page of a trial file: a single line-scan
// acquisition of Rows x Cols samples.
type Frame struct {
	// Data holds the samples in row-major order, upcast to float64
	Data []float64

	// Rows is the number of scan lines in the frame
	Rows int

	// Cols is the number of samples per scan line
	Cols int
}

// NewFrame allocates a zeroed frame.
func NewFrame(rows, cols int) Frame {
	return Frame{
		Data: make([]float64, rows*cols),
		Rows: rows,
		Cols: cols,
	}
}

// Row returns the samples of scan line y. The slice aliases the frame data.
func (f Frame) Row(y int) []float64 {
	return f.Data[y*f.Cols : (y+1)*f.Cols]
}

// Stack represents the frames of one acquired file (one trial) in
// acquisition order.
type Stack struct {
	// Frames are the decoded pages in file order
	Frames []Frame

	// Index is the trial index assigned from the sorted file order
	Index int

	// Source is the base name of the file the frames were decoded from
	Source string
}
