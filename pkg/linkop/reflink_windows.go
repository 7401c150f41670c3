//go:build windows
// +build windows

package linkop

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// copyFileCloneForce asks CopyFileExW to produce a block clone (ReFS's
// copy-on-write primitive) instead of a byte-for-byte copy. There is no
// bound helper for this flag in golang.org/x/sys/windows, so the
// procedure is resolved directly off kernel32.dll the same way the
// package itself resolves procedures it has not wrapped.
const copyFileCloneForce = 0x00800000

const reflinkBuildSupport = true

var (
	modKernel32     = windows.NewLazySystemDLL("kernel32.dll")
	procCopyFileExW = modKernel32.NewProc("CopyFileExW")
)

// reflink creates dst as a copy-on-write clone of src. Requires Windows
// 10 1903+ on a ReFS volume; on any other filesystem CopyFileExW returns
// an error and the caller falls back to a hardlink.
func reflink(src, dst string) error {
	srcPtr, err := windows.UTF16PtrFromString(src)
	if err != nil {
		return err
	}
	dstPtr, err := windows.UTF16PtrFromString(dst)
	if err != nil {
		return err
	}

	ret, _, callErr := procCopyFileExW.Call(
		uintptr(unsafe.Pointer(srcPtr)),
		uintptr(unsafe.Pointer(dstPtr)),
		0,
		0,
		0,
		uintptr(copyFileCloneForce),
	)
	if ret == 0 {
		return callErr
	}
	return nil
}
