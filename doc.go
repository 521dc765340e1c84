/*
Package faceprep extracts aligned, zoomed face crops and facial landmark
maps from raw photographs, turning a directory of before/after makeup
images into a consistently paired dataset ready for training.

The package provides a command line interface, supporting various flags
for the different extraction operations. To check the supported commands
type:

	$ faceprep --help

In case you wish to integrate the API in a self constructed environment
here is a simple example:

	package main

	import (
		"fmt"
		"os"

		"github.com/makeupnet/faceprep"
		"github.com/makeupnet/faceprep/landmark"
	)

	func main() {
		d, err := landmark.NewPigoDetector("cascade", landmark.DefaultDetectorParams())
		if err != nil {
			fmt.Printf("Error loading the cascade files: %s", err.Error())
			return
		}
		p := faceprep.NewProcessor(d)

		in, err := os.Open("portrait.jpg")
		if err != nil {
			fmt.Printf("Error opening the source file: %s", err.Error())
			return
		}
		defer in.Close()

		out, err := os.OpenFile("face.jpg", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			fmt.Printf("Error creating the destination file: %s", err.Error())
			return
		}
		defer out.Close()

		if err := p.Process(in, out); err != nil {
			fmt.Printf("Error extracting the face: %s", err.Error())
		}
	}
*/
package faceprep
