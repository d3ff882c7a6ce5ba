package browse

import "errors"

var ErrNoDetails = errors.New("no title loaded")
