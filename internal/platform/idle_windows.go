package platform

import (
	"context"
	"fmt"
	"syscall"
	"time"
	"unsafe"
)

var (
	user32               = syscall.NewLazyDLL("user32.dll")
	kernel32             = syscall.NewLazyDLL("kernel32.dll")
	procGetLastInputInfo = user32.NewProc("GetLastInputInfo")
	procGetTickCount     = kernel32.NewProc("GetTickCount")
)

// lastInputProvider compares GetLastInputInfo with GetTickCount.
type lastInputProvider struct{}

// lastInputInfo mirrors LASTINPUTINFO.
type lastInputInfo struct {
	size     uint32
	tickTime uint32
}

func newIdleProvider() IdleProvider {
	if procGetLastInputInfo.Find() != nil || procGetTickCount.Find() != nil {
		return unsupportedIdleProvider{}
	}
	return lastInputProvider{}
}

func (lastInputProvider) SinceLastInput(context.Context) (time.Duration, error) {
	info := lastInputInfo{size: uint32(unsafe.Sizeof(lastInputInfo{}))}
	ok, _, callErr := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&info)))
	if ok == 0 {
		return 0, fmt.Errorf("get last input info: %w", callErr)
	}
	now, _, _ := procGetTickCount.Call()
	// 32-bit tick counts: unsigned subtraction survives the 49.7 day wrap.
	return time.Duration(uint32(now)-info.tickTime) * time.Millisecond, nil
}
