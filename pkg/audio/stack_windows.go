//go:build windows

package audio

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/go-ole/go-ole"
	"github.com/moutend/go-wca/pkg/wca"
)

// S_FALSE is returned by CoInitializeEx if COM is already initialized on the
// current thread.
const sFalse = 0x00000001

// Stack enumerates the sessions of all active capture endpoints using the
// Windows Core Audio API.
type Stack struct {
	mutex sync.Mutex
}

func (this *Stack) Initialize() error {
	return nil
}

func (this *Stack) Dispose() error {
	return nil
}

func (this *Stack) FindDevices() (Devices, error) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	// COM is initialized per thread, the loop might be scheduled on any.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		if oleErr, ok := err.(*ole.OleError); !ok || oleErr.Code() != sFalse {
			return nil, fmt.Errorf("failed to initialize ole: %w", err)
		}
	}
	defer ole.CoUninitialize()

	var de *wca.IMMDeviceEnumerator
	if err := wca.CoCreateInstance(wca.CLSID_MMDeviceEnumerator, 0, wca.CLSCTX_ALL, wca.IID_IMMDeviceEnumerator, &de); err != nil {
		return nil, fmt.Errorf("cannot ceate IMMDeviceEnumerator instance: %w", err)
	}
	defer de.Release()

	return this.introspectDevicesOf(de)
}

func (this *Stack) introspectDevicesOf(enumerator *wca.IMMDeviceEnumerator) (result Devices, _ error) {
	var collection *wca.IMMDeviceCollection
	if err := enumerator.EnumAudioEndpoints(wca.ECapture, wca.DEVICE_STATE_ACTIVE, &collection); err != nil {
		return nil, fmt.Errorf("cannot query IMMDevices: %w", err)
	}
	defer collection.Release()

	var count uint32
	if err := collection.GetCount(&count); err != nil {
		return nil, fmt.Errorf("cannot get count of IMMDevice collection: %w", err)
	}

	for i := uint32(0); i < count; i++ {
		device, err := this.introspectDeviceOf(collection, i)
		if err != nil {
			return nil, err
		}
		result = append(result, device)
	}

	return
}

func (this *Stack) introspectDeviceOf(collection *wca.IMMDeviceCollection, deviceIndex uint32) (Device, error) {
	var device *wca.IMMDevice
	if err := collection.Item(deviceIndex, &device); err != nil {
		return Device{}, fmt.Errorf("cannot get item %d of IMMDevice collection: %w", deviceIndex, err)
	}
	defer device.Release()

	return this.introspectDevice(device, deviceIndex)
}

func (this *Stack) introspectDevice(captureDevice *wca.IMMDevice, deviceIndex uint32) (Device, error) {
	var propertyStore *wca.IPropertyStore
	if err := captureDevice.OpenPropertyStore(wca.STGM_READ, &propertyStore); err != nil {
		return Device{}, fmt.Errorf("cannot get properties of device %d of IMMDevice collection: %w", deviceIndex, err)
	}
	defer propertyStore.Release()

	var name wca.PROPVARIANT
	if err := propertyStore.GetValue(&wca.PKEY_Device_FriendlyName, &name); err != nil {
		return Device{}, fmt.Errorf("cannot get name of device %d of IMMDevice collection: %w", deviceIndex, err)
	}

	var sessionManager *wca.IAudioSessionManager2
	if err := captureDevice.Activate(wca.IID_IAudioSessionManager2, wca.CLSCTX_ALL, nil, &sessionManager); err != nil {
		return Device{}, fmt.Errorf("cannot get session for device %d of IMMDevice collection: %w", deviceIndex, err)
	}
	defer sessionManager.Release()

	device := Device{
		Name:  name.String(),
		Index: deviceIndex,
	}

	sessions, err := this.sessionsOf(device, sessionManager)
	if err != nil {
		return Device{}, err
	}
	device.Sessions = sessions

	return device, nil
}

func (this *Stack) sessionsOf(device Device, sessionManager *wca.IAudioSessionManager2) (result Sessions, _ error) {
	var enumerator *wca.IAudioSessionEnumerator
	if err := sessionManager.GetSessionEnumerator(&enumerator); err != nil {
		return nil, fmt.Errorf("cannot get audio sessions of device %v: %w", device, err)
	}
	defer enumerator.Release()

	var count int
	if err := enumerator.GetCount(&count); err != nil {
		return nil, fmt.Errorf("cannot get count of audio sessions of device %v: %w", device, err)
	}

	for i := 0; i < count; i++ {
		session, ok, err := this.introspectSessionOf(device, enumerator, i)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, session)
		}
	}
	return
}

func (this *Stack) introspectSessionOf(device Device, sessions *wca.IAudioSessionEnumerator, sessionIndex int) (Session, bool, error) {
	var sessionControl *wca.IAudioSessionControl
	if err := sessions.GetSession(sessionIndex, &sessionControl); err != nil {
		return Session{}, false, fmt.Errorf("cannot get audio session %d of device %v: %w", sessionIndex, device, err)
	}
	defer sessionControl.Release()

	return this.introspectSession(device, sessionControl, sessionIndex)
}

func (this *Stack) introspectSession(device Device, sessionControl *wca.IAudioSessionControl, sessionIndex int) (Session, bool, error) {
	dispatch, err := sessionControl.QueryInterface(wca.IID_IAudioSessionControl2)
	if err != nil {
		return Session{}, false, fmt.Errorf("cannot get audio session control %d of device %v: %w", sessionIndex, device, err)
	}
	sessionControl2 := (*wca.IAudioSessionControl2)(unsafe.Pointer(dispatch))
	defer sessionControl2.Release()

	var pid uint32
	// Exclude system sound session
	if err := sessionControl2.IsSystemSoundsSession(); err == nil {
		return Session{}, false, nil
	} else if err.Error() == "Incorrect function." {
		if err := sessionControl2.GetProcessId(&pid); err != nil {
			return Session{}, false, fmt.Errorf("cannot get PID of processes which hold session %d of device %v: %w", sessionIndex, device, err)
		}
	} else {
		return Session{}, false, fmt.Errorf("cannot get determine if audio session %d of device %v is a system session or not: %w", sessionIndex, device, err)
	}

	var state uint32
	if err := sessionControl.GetState(&state); err != nil {
		return Session{}, false, fmt.Errorf("cannot get state of audio session %d of device %v: %w", sessionIndex, device, err)
	}

	muted, err := this.isMuted(sessionControl)
	if err != nil {
		return Session{}, false, fmt.Errorf("cannot get mute state of audio session %d of device %v: %w", sessionIndex, device, err)
	}

	return Session{
		Identifier: fmt.Sprintf("%s/%d", device.Name, sessionIndex),
		HolderPid:  pid,
		Muted:      muted,
		State:      SessionState(state),
	}, true, nil
}

func (this *Stack) isMuted(sessionControl *wca.IAudioSessionControl) (bool, error) {
	dispatch, err := sessionControl.QueryInterface(wca.IID_ISimpleAudioVolume)
	if err != nil {
		return false, err
	}
	volume := (*wca.ISimpleAudioVolume)(unsafe.Pointer(dispatch))
	defer volume.Release()

	var muted bool
	if err := volume.GetMute(&muted); err != nil {
		return false, err
	}
	return muted, nil
}
