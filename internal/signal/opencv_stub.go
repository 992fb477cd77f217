//go:build !opencv

package signal

import "errors"

func newOpenCVExtractor() (Extractor, error) {
	return nil, errors.New("signal backend opencv requires building with -tags opencv")
}
