package utils

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// DownloadImage downloads an image from the internet and saves it into a
// temporary file. The caller is responsible for removing the returned file.
func DownloadImage(uri string) (string, error) {
	res, err := http.Get(uri)
	if err != nil {
		return "", fmt.Errorf("unable to download the image from %s: %w", uri, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unable to download the image from %s: status %s", uri, res.Status)
	}

	tmpfile, err := os.CreateTemp("", "faceprep")
	if err != nil {
		return "", fmt.Errorf("unable to create a temporary file: %w", err)
	}

	if _, err := io.Copy(tmpfile, res.Body); err != nil {
		tmpfile.Close()
		os.Remove(tmpfile.Name())
		return "", fmt.Errorf("unable to save the downloaded image: %w", err)
	}
	if err := tmpfile.Close(); err != nil {
		os.Remove(tmpfile.Name())
		return "", err
	}

	ctype, err := DetectContentType(tmpfile.Name())
	if err != nil {
		os.Remove(tmpfile.Name())
		return "", err
	}
	if !strings.Contains(ctype, "image") {
		os.Remove(tmpfile.Name())
		return "", fmt.Errorf("the downloaded file is not a valid image type")
	}

	return tmpfile.Name(), nil
}

// IsValidUrl tests a string to determine if it is a well-structured url or not.
func IsValidUrl(uri string) bool {
	_, err := url.ParseRequestURI(uri)
	if err != nil {
		return false
	}

	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}

	return true
}

// DetectContentType detects the file type by reading MIME type information of the file content.
func DetectContentType(fname string) (string, error) {
	file, err := os.Open(fname)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Printf("could not close the opened file: %v", err)
		}
	}()

	// Only the first 512 bytes are used to sniff the content type.
	buffer := make([]byte, 512)
	if _, err := file.Read(buffer); err != nil {
		return "", err
	}

	// Always returns a valid content-type and "application/octet-stream" if no others seemed to match.
	return http.DetectContentType(buffer), nil
}
