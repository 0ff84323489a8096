// Package book reads AR book directories.
//
// A book directory holds one reference image per page, named page<N> with
// any decodable image extension, and a config.txt naming the book and the
// media attached to each page. Media paths are relative to the directory
// and only count when the file exists.
package book
