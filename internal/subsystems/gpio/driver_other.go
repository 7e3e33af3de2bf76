//go:build !linux

package gpio

// ChipDriver is unavailable outside Linux; every call fails.
type ChipDriver struct {
	chip string
}

// NewChipDriver returns a driver that reports ErrUnsupported.
func NewChipDriver(chip string) *ChipDriver {
	return &ChipDriver{chip: chip}
}

func (d *ChipDriver) Init() error               { return ErrUnsupported }
func (d *ChipDriver) SetPin(int, bool) error    { return ErrUnsupported }
func (d *ChipDriver) ReadPin(int) (bool, error) { return false, ErrUnsupported }
