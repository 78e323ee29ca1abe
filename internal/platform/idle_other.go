//go:build !linux && !darwin && !windows

package platform

func newIdleProvider() IdleProvider {
	return unsupportedIdleProvider{}
}
