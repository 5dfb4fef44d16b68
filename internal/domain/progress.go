package domain

// TransferProgress tracks bytes read for one fetch.
// TotalBytes is -1 when the size is unknown.
type TransferProgress struct {
	LoadedBytes int64
	TotalBytes  int64
}

// Known reports whether the total size is known
func (p TransferProgress) Known() bool {
	return p.TotalBytes > 0
}

// ProgressRange is the slice of the 0-100 scale a stage reports into
type ProgressRange struct {
	Lo int
	Hi int
}

// Map converts transfer progress to a percentage inside the range,
// floor-rounded. Loaded bytes past the total are clamped to Hi.
func (r ProgressRange) Map(p TransferProgress) int {
	if !p.Known() {
		return r.Lo
	}
	if p.LoadedBytes >= p.TotalBytes {
		return r.Hi
	}
	return r.Lo + int(p.LoadedBytes*int64(r.Hi-r.Lo)/p.TotalBytes)
}
