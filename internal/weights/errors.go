package weights

import "errors"

var (
	ErrMissingField     = errors.New("missing weights config field")
	ErrMissingURL       = errors.New("weights file is not cached and no weights_url is set")
	ErrCacheNotWritable = errors.New("weights cache is not writable")
	ErrDownloadFailed   = errors.New("weights download failed")
)
