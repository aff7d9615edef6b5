package recorder

import (
	"github.com/Iron-Ham/framegrab/internal/capture"
	fgerrors "github.com/Iron-Ham/framegrab/internal/errors"
)

// LaunchSpec describes one recording.
type LaunchSpec struct {
	Target capture.Target
	// Audio requests an audio track. With an empty AudioDevice the recorder
	// picks its own default source.
	Audio       bool
	AudioDevice string
	OutputPath  string
}

// BuildArgs returns the recorder argument list for spec. extra is inserted
// before the output flag.
//
//	Region          -> -g "X,Y WxH"
//	Output{name}    -> -o name (nothing for the default output)
//	audio + device  -> --audio=device
//	audio, no dev   -> --audio
//	always          -> -y -f path
//
// The output file already exists when the recorder starts, because the name
// was reserved by creating it, so -y stops wf-recorder from asking to
// overwrite it.
func BuildArgs(spec LaunchSpec, extra []string) ([]string, error) {
	if spec.OutputPath == "" {
		return nil, fgerrors.NewValidationError("recording needs an output path").WithField("output_path")
	}

	var args []string
	switch t := spec.Target.(type) {
	case capture.Region:
		args = append(args, "-g", t.Geometry())
	case capture.Output:
		if !t.IsDefault() {
			args = append(args, "-o", t.Name)
		}
	case capture.Window:
		return nil, fgerrors.NewValidationError("window recording is not supported").
			WithField("target").
			WithValue(t.String())
	default:
		return nil, fgerrors.NewValidationError("recording needs a region or output target").
			WithField("target")
	}

	if spec.Audio {
		if spec.AudioDevice != "" {
			args = append(args, "--audio="+spec.AudioDevice)
		} else {
			args = append(args, "--audio")
		}
	}

	args = append(args, extra...)
	args = append(args, "-y", "-f", spec.OutputPath)
	return args, nil
}
