package geometry

import (
	"fmt"
	"os"
)

// WriteIMG writes the flat sector stream of the image to a raw IMG file.
func WriteIMG(filename string, img *Image) error {
	if len(img.Sectors) == 0 {
		return fmt.Errorf("image has no sectors")
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(img.Flat()); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return file.Close()
}
