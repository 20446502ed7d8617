package pixbuf

import "time"

// KeyValue is a caller-defined header record written after the fixed metadata keys.
type KeyValue struct {
	Name  string
	Value string
}

// Metadata describes how an image was acquired.
type Metadata struct {
	CameraName string
	// Timestamp is the capture time. The zero value means unknown.
	Timestamp time.Time

	BinX, BinY             int
	PixelSizeX, PixelSizeY float64 // microns
	Exposure               time.Duration
	Temperature            float64 // degrees Celsius
	OriginX, OriginY       int
	Offset                 int
	Gain                   int64
	GainMin, GainMax       int64

	// Extended records are written in order, after the fixed keys.
	Extended []KeyValue
}

// AddExtended appends a caller-defined record.
func (m *Metadata) AddExtended(name, value string) {
	m.Extended = append(m.Extended, KeyValue{Name: name, Value: value})
}

// Clone returns a deep copy of m.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}

	c := *m
	c.Extended = append([]KeyValue(nil), m.Extended...)

	return &c
}
