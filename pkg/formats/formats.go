// Package formats converts between meshes and the plain mesh interchange
// formats 3MF packages are usually made from.
package formats
