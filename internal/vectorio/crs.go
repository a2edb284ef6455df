package vectorio

import (
	"strconv"
	"strings"
)

const urnEPSGPrefix = "urn:ogc:def:crs:epsg::"

// EPSGCode extracts the numeric code from "EPSG:32617", the OGC URN form or a
// bare number.
func EPSGCode(crs string) (int, bool) {
	value := strings.ToLower(strings.TrimSpace(crs))
	switch {
	case strings.HasPrefix(value, urnEPSGPrefix):
		value = strings.TrimPrefix(value, urnEPSGPrefix)
	case strings.HasPrefix(value, "epsg:"):
		value = strings.TrimPrefix(value, "epsg:")
	}
	code, err := strconv.Atoi(value)
	if err != nil || code <= 0 {
		return 0, false
	}
	return code, true
}

// CanonicalCRS rewrites EPSG references as "EPSG:<code>" and returns other
// values trimmed.
func CanonicalCRS(crs string) string {
	if code, ok := EPSGCode(crs); ok {
		return "EPSG:" + strconv.Itoa(code)
	}
	return strings.TrimSpace(crs)
}

func crsURN(crs string) string {
	if code, ok := EPSGCode(crs); ok {
		return "urn:ogc:def:crs:EPSG::" + strconv.Itoa(code)
	}
	return strings.TrimSpace(crs)
}
