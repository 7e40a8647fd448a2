// Package naming provides the naming conventions for conversion
// artifacts: converted disk images, output descriptors, per-job log
// files, and transient boot-test instance names.
//
// Keeping the patterns in one place keeps the descriptor builder, the
// disk converter, and the rerun checks agreeing on where artifacts
// live.
package naming

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Disk image extensions per target format.
const (
	ExtQCOW2 = ".qcow2"
	ExtRaw   = ".raw"
	ExtXML   = ".xml"
)

// SwapExt replaces the extension of path with ext (which must include
// the leading dot). A path without an extension gets ext appended.
func SwapExt(path, ext string) string {
	old := filepath.Ext(path)
	return strings.TrimSuffix(path, old) + ext
}

// TargetDisk derives the converted disk path from the mapped target
// path of a source disk: the source filename with its extension
// swapped for the target image format's.
func TargetDisk(mappedPath, format string) string {
	switch format {
	case "raw":
		return SwapExt(mappedPath, ExtRaw)
	default:
		return SwapExt(mappedPath, ExtQCOW2)
	}
}

// OutputXML derives the default output descriptor path from the mapped
// target path of the source descriptor.
func OutputXML(mappedVMXPath string) string {
	return SwapExt(mappedVMXPath, ExtXML)
}

// LogFile returns the per-job stage log path for an output descriptor.
func LogFile(outputXML string) string {
	return outputXML + ".log"
}

// CaptureFile returns the external-tool output capture path for an
// output descriptor.
func CaptureFile(outputXML string) string {
	return outputXML + ".out"
}

// TransientInstance returns a boot-test instance name for the given
// domain name. The random suffix keeps concurrent validations of
// differently-named jobs from colliding.
func TransientInstance(domainName string) string {
	return fmt.Sprintf("testboot-%s-%s", domainName, uuid.NewString()[:8])
}

// DiskDriverType maps a disk path to the libvirt driver type by
// extension, or "" when unrecognized.
func DiskDriverType(path string) string {
	switch filepath.Ext(path) {
	case ".qcow2":
		return "qcow2"
	case ".raw", ".img", ".iso":
		return "raw"
	case ".vmdk":
		return "vmdk"
	}
	return ""
}
