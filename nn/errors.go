package nn

import "errors"

// ErrInvalidConfiguration is wrapped by every settings, selector, size-info
// and shape failure. Test with errors.Is.
var ErrInvalidConfiguration = errors.New("invalid configuration")
