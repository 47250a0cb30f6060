// Package ota takes a new build of the node over HTTP and swaps it in from
// the main loop.
package ota

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	logger "github.com/sirupsen/logrus"
)

const (
	ChecksumHeader = "X-Checksum-Sha256"
	maxImage       = 64 << 20
)

// Updater stages an uploaded binary next to the running one. Handle, called
// once per loop iteration, moves it into place and asks for a restart.
type Updater struct {
	lock    sync.Mutex
	target  string
	staged  string
	ready   bool
	restart func()
}

func New(target string, restart func()) *Updater {
	return &Updater{
		target:  target,
		staged:  target + ".new",
		restart: restart,
	}
}

// ServeHTTP accepts PUT with the binary as body. The optional checksum
// header must match the body.
func (u *Updater) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		rw.Header().Set("Allow", http.MethodPut)
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	logger.Info("OTA update start")
	sum, err := u.stage(r.Body, r.Header.Get(ChecksumHeader))
	if err != nil {
		logger.Errorf("OTA update failed [%v]", err)
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	logger.Infof("OTA update staged [%v]", sum)
	rw.WriteHeader(http.StatusAccepted)
	_, _ = fmt.Fprintln(rw, sum)
}

func (u *Updater) stage(body io.Reader, want string) (string, error) {
	u.lock.Lock()
	defer u.lock.Unlock()

	f, err := os.OpenFile(u.staged, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return "", fmt.Errorf("create staged image: %w", err)
	}
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, h), io.LimitReader(body, maxImage+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n == 0 {
		err = fmt.Errorf("empty image")
	}
	if err == nil && n > maxImage {
		err = fmt.Errorf("image larger than %v bytes", maxImage)
	}
	sum := hex.EncodeToString(h.Sum(nil))
	if err == nil && want != "" && !strings.EqualFold(want, sum) {
		err = fmt.Errorf("checksum mismatch, got %v", sum)
	}
	if err != nil {
		_ = os.Remove(u.staged)
		u.ready = false
		return "", err
	}
	u.ready = true
	return sum, nil
}

// Pending reports whether an image is waiting to be applied.
func (u *Updater) Pending() bool {
	u.lock.Lock()
	defer u.lock.Unlock()
	return u.ready
}

// Handle applies a staged image, if any, and returns whether it did.
func (u *Updater) Handle() bool {
	u.lock.Lock()
	defer u.lock.Unlock()
	if !u.ready {
		return false
	}
	u.ready = false
	if err := os.Rename(u.staged, u.target); err != nil {
		logger.Errorf("OTA apply failed [%v]", err)
		return false
	}
	logger.Info("OTA update applied, restarting")
	if u.restart != nil {
		u.restart()
	}
	return true
}
