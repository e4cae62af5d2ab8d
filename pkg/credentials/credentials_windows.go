//go:build windows

package credentials

import (
	"errors"
	"fmt"

	"github.com/danieljoos/wincred"
	log "github.com/echocat/slf4g"
	"golang.org/x/sys/windows"
)

// All Credentials share one generic entry of the Windows Credential Manager,
// the blob is their JSON representation.
const targetUserName = "presence-monitor"

func (this *Credentials) ReadFromStore() (supported bool, err error) {
	entry, err := wincred.GetGenericCredential(appName)
	switch {
	case errors.Is(err, windows.ERROR_NOT_FOUND):
		*this = Credentials{}
		return true, nil
	case err != nil:
		return true, fmt.Errorf("cannot read %s from Windows Credential Manager: %w", appName, err)
	}

	var buf Credentials
	if len(entry.CredentialBlob) > 0 {
		if err := buf.UnmarshalBinary(entry.CredentialBlob); err != nil {
			log.WithError(err).
				With("target", appName).
				Warn("Stored credentials are corrupt. They are treated as absent.")
			buf = Credentials{}
		}
	}
	*this = buf
	return true, nil
}

func (this *Credentials) WriteToStore() (supported bool, err error) {
	blob, err := this.MarshalBinary()
	if err != nil {
		return true, fmt.Errorf("cannot encode credentials: %w", err)
	}

	entry := wincred.NewGenericCredential(appName)
	entry.UserName = targetUserName
	entry.Comment = "Hue bridge user and MQTT broker credentials of the presence monitor."
	entry.CredentialBlob = blob
	entry.Persist = wincred.PersistLocalMachine
	if err := entry.Write(); err != nil {
		return true, fmt.Errorf("cannot write %s to Windows Credential Manager: %w", appName, err)
	}
	return true, nil
}
