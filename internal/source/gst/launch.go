package gst

import (
	"fmt"
	"net/url"
	"strings"
)

// sinkName is the appsink element name every launch description must use.
const sinkName = "sink"

// launchDescription builds a gst-launch style pipeline for uri. Every
// pipeline ends in RGB frames delivered to an appsink named "sink".
//
//	v4l2:///dev/video0       local camera
//	rtsp://host/stream       network camera (TCP)
//	file:///path/clip.mp4    any file uridecodebin can play
//	gst:<description>        custom pipeline, must contain "appsink name=sink"
//
// Live sources keep only the newest frame; files deliver every frame.
func launchDescription(uri string) (desc string, live bool, err error) {
	if custom, ok := strings.CutPrefix(uri, "gst:"); ok {
		if !strings.Contains(custom, "name="+sinkName) {
			return "", false, fmt.Errorf("gst: custom pipeline must contain an appsink named %q", sinkName)
		}
		return custom, true, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return "", false, fmt.Errorf("gst: parse uri %q: %w", uri, err)
	}

	var head string
	switch u.Scheme {
	case "v4l2":
		dev := u.Path
		if dev == "" {
			dev = "/dev/video0"
		}
		head = fmt.Sprintf("v4l2src device=%s", dev)
		live = true
	case "rtsp", "rtsps":
		// protocols=4 forces TCP transport
		head = fmt.Sprintf("rtspsrc location=%s protocols=4 latency=200 ! decodebin", uri)
		live = true
	case "file", "http", "https":
		head = fmt.Sprintf("uridecodebin uri=%s", uri)
	default:
		return "", false, fmt.Errorf("gst: unsupported uri scheme %q", u.Scheme)
	}

	tail := fmt.Sprintf("videoconvert ! video/x-raw,format=RGB ! appsink name=%s sync=false", sinkName)
	if live {
		tail += " max-buffers=1 drop=true"
	}
	return head + " ! " + tail, live, nil
}
