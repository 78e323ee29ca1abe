package platform

import (
	"bufio"
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"strings"
	"sync"
	"time"
)

// ErrAlreadyRunning indicates another instance already holds the lock.
var ErrAlreadyRunning = errors.New("instance already running")

const raiseCommand = "raise"

// InstanceGuard holds the single-instance lock: a listener on a port
// derived from the app name. A second launch asks the holder to raise
// its window instead of starting another surface.
type InstanceGuard struct {
	listener net.Listener
	address  string
	mu       sync.Mutex
	onRaise  func()
	done     chan struct{}
}

// AcquireSingleInstance takes the lock for appName. When another
// instance holds it, that instance is asked to raise its window and
// ErrAlreadyRunning is returned.
func AcquireSingleInstance(appName string) (*InstanceGuard, error) {
	address := fmt.Sprintf("127.0.0.1:%d", portFromName(appName))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		if raiseErr := requestRaise(address); raiseErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrAlreadyRunning, raiseErr)
		}
		return nil, ErrAlreadyRunning
	}
	guard := &InstanceGuard{listener: listener, address: address, done: make(chan struct{})}
	go guard.serve()
	return guard, nil
}

// OnRaise registers the callback run when a second launch is attempted.
func (guard *InstanceGuard) OnRaise(callback func()) {
	guard.mu.Lock()
	guard.onRaise = callback
	guard.mu.Unlock()
}

// Release frees the lock.
func (guard *InstanceGuard) Release() error {
	if guard == nil || guard.listener == nil {
		return nil
	}
	err := guard.listener.Close()
	<-guard.done
	return err
}

// Address returns the bound address.
func (guard *InstanceGuard) Address() string {
	if guard == nil {
		return ""
	}
	return guard.address
}

func (guard *InstanceGuard) serve() {
	defer close(guard.done)
	for {
		connection, err := guard.listener.Accept()
		if err != nil {
			return
		}
		guard.handle(connection)
	}
}

func (guard *InstanceGuard) handle(connection net.Conn) {
	defer connection.Close()
	_ = connection.SetReadDeadline(time.Now().Add(time.Second))
	line, err := bufio.NewReader(connection).ReadString('\n')
	if err != nil || strings.TrimSpace(line) != raiseCommand {
		return
	}
	guard.mu.Lock()
	callback := guard.onRaise
	guard.mu.Unlock()
	if callback != nil {
		callback()
	}
}

func requestRaise(address string) error {
	connection, err := net.DialTimeout("tcp", address, time.Second)
	if err != nil {
		return fmt.Errorf("dial running instance: %w", err)
	}
	defer connection.Close()
	if _, err := connection.Write([]byte(raiseCommand + "\n")); err != nil {
		return fmt.Errorf("signal running instance: %w", err)
	}
	return nil
}

func portFromName(appName string) int {
	const (
		minPort = 20000
		maxPort = 39999
	)
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(appName))
	rangeSize := maxPort - minPort + 1
	return minPort + int(hash.Sum32()%uint32(rangeSize))
}
