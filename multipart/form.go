package multipart

import "os"

// RemoveAll removes any temporary files associated with a Form.
func (f *Form) RemoveAll() error {
	var err error
	for _, fhs := range f.File {
		for _, fh := range fhs {
			if fh.tmpfile != "" {
				if e := os.Remove(fh.tmpfile); e != nil && err == nil {
					err = e
				}
			}
		}
	}
	return err
}
