package config

import "errors"

// ErrConfigMissing is returned when a component directory has no
// test.config.json at all. Callers treat this the same as a parse error:
// log and skip.
var ErrConfigMissing = errors.New("config: test.config.json not found")

// ErrKindMismatch is returned when a config's declared Type does not match
// the directory it was discovered under (e.g. a "client" config found under
// servers/).
var ErrKindMismatch = errors.New("config: declared type does not match directory kind")
