package pipelineconfig

import "os"

// readFileOrEmpty returns the file contents, or nil with no error if the
// file does not exist — an unconfigured deployment should run on defaults.
func readFileOrEmpty(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}
