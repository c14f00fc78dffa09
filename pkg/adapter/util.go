package adapter

import (
	"strconv"

	"github.com/seekerror/stdlib/pkg/lang"
)

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func some(v int) lang.Optional[int] {
	return lang.Some(v)
}

func someI64(v int64) lang.Optional[int64] {
	return lang.Some(v)
}
