// Package fits writes and reads FITS files holding images, optionally stored
// with the tiled image compression convention.
//
// # Writing
//
// A file is described by a Builder on any fsys.FS and written on Close:
//
//	osFS, err := fsys.OS()
//	...
//	f, err := fits.Create(osFS, "frame.fits[compress R]").Overwrite().Open()
//	if err != nil {
//	    return err
//	}
//	primary := f.PrimaryHDU()
//	_ = primary.WriteKey("COMPRESSED_IMAGE", "T")
//
//	hdu, err := f.CreateImage("IMAGE", fits.ImageDescription{
//	    Type:       format.TypeUnsignedShort,
//	    Dimensions: []int{height, width},
//	})
//	...
//	err = hdu.WriteImage(samples)
//	...
//	err = f.Close()
//
// The bracketed qualifier of the file name selects the compression of every
// image extension; the primary HDU is never compressed. Dimensions are given
// slowest axis first and written reversed as NAXIS1..n.
//
// # Header records
//
// Keywords are upper-cased. Names that do not fit the 8 character keyword
// field use the HIERARCH convention and long strings are continued with
// CONTINUE cards. Keyword lookup goes through an xxHash64 index.
//
// # Reading
//
// Open and Decode parse every HDU of a file. ReadImage returns the physical
// samples of plain and tile-compressed images.
package fits
