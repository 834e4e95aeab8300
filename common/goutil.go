package common

import (
	"strings"
)

func ContainsStringSliceFold(strs []string, search string) bool {
	for _, v := range strs {
		if strings.EqualFold(v, search) {
			return true
		}
	}

	return false
}

func ContainsIntSlice(slice []int, search int) bool {
	for _, v := range slice {
		if v == search {
			return true
		}
	}

	return false
}
