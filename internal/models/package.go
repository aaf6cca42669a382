package models

import "strings"

// Package is a service tier selectable after diagnosis.
type Package string

const (
	PackageBasic     Package = "BASIC"
	PackageStandard  Package = "STANDARD"
	PackagePro       Package = "PRO"
	PackageProPlusOS Package = "PRO_PLUS_OS"
)

// legacy callback code used by older keyboards
const packageProWin = "PRO_WIN"

// Valid reports whether p is one of the known tiers.
func (p Package) Valid() bool {
	switch p {
	case PackageBasic, PackageStandard, PackagePro, PackageProPlusOS:
		return true
	default:
		return false
	}
}

// ParsePackage maps a callback code to a package. Unknown codes are returned
// as-is and fail Valid.
func ParsePackage(code string) Package {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == packageProWin {
		return PackageProPlusOS
	}
	return Package(code)
}
