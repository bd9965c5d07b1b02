//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework AVFoundation
#import <AVFoundation/AVFoundation.h>

int checkMicrophonePermission() {
    AVAuthorizationStatus status = [AVCaptureDevice authorizationStatusForMediaType:AVMediaTypeAudio];
    return (int)status;
}

void requestMicrophonePermission() {
    [AVCaptureDevice requestAccessForMediaType:AVMediaTypeAudio completionHandler:^(BOOL granted) {}];
}
*/
import "C"

// CheckMicrophone returns the current microphone permission status
func CheckMicrophone() Status {
	return Status(C.checkMicrophonePermission())
}

// EnsureMicrophone asks for microphone access when it has not been decided
// yet. The system dialog is asynchronous, so an undecided state is reported
// as denied for this run.
func EnsureMicrophone() (Status, error) {
	status := CheckMicrophone()
	if status.Granted() {
		return status, nil
	}
	if status == NotDetermined {
		C.requestMicrophonePermission()
	}
	return status, ErrMicrophoneDenied
}
