package utils

import (
	"github.com/davecgh/go-spew/spew"
)

func Dump(obj interface{}) string {
	return spew.Sdump(obj)
}
