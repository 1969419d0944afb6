package fetch

import (
	stderrors "errors"

	"github.com/wippyai/wasm-loader/errors"
)

func asError(err error, target **errors.Error) bool {
	return stderrors.As(err, target)
}
