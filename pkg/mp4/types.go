package mp4

import "encoding/binary"

// FourCC is a four-byte ISO-BMFF box type, read and written as raw
// Latin-1 bytes rather than UTF-8. iTunes metadata keys the byte 0xA9
// ('©') into the first byte of several atom types, which is not a valid
// single-byte UTF-8 code point, so box types must never be treated as
// Go strings for I/O purposes.
type FourCC [4]byte

func (f FourCC) String() string { return string(f[:]) }

func fourCC(s string) FourCC {
	var f FourCC
	copy(f[:], s)
	return f
}

// Container box types. meta is a container whose children begin after a
// 4-byte version/flags word; every other container here begins its
// children immediately after the header.
var (
	TypeFtyp = fourCC("ftyp")
	TypeMoov = fourCC("moov")
	TypeMdat = fourCC("mdat")
	TypeTrak = fourCC("trak")
	TypeMdia = fourCC("mdia")
	TypeMinf = fourCC("minf")
	TypeStbl = fourCC("stbl")
	TypeUdta = fourCC("udta")
	TypeEdts = fourCC("edts")
	TypeMeta = fourCC("meta")
	TypeIlst = fourCC("ilst")
	TypeFree = fourCC("----")

	TypeMvhd = fourCC("mvhd")
	TypeTkhd = fourCC("tkhd")
	TypeMdhd = fourCC("mdhd")
	TypeHdlr = fourCC("hdlr")
	TypeSmhd = fourCC("smhd")
	TypeDinf = fourCC("dinf")
	TypeDref = fourCC("dref")
	TypeURL  = fourCC("url ")

	TypeStsd = fourCC("stsd")
	TypeStsc = fourCC("stsc")
	TypeStsz = fourCC("stsz")
	TypeStco = fourCC("stco")
	TypeCo64 = fourCC("co64")
	TypeStts = fourCC("stts")

	TypeStem = fourCC("stem")

	TypeMean = fourCC("mean")
	TypeName = fourCC("name")
	TypeData = fourCC("data")
)

// iTunes standard metadata atom types.
var (
	AtomTitle = fourCC("\xa9nam")
	AtomArtist = fourCC("\xa9ART")
	AtomAlbum  = fourCC("\xa9alb")
	AtomDay    = fourCC("\xa9day")
	AtomGenre  = fourCC("\xa9gen")
	AtomTempo  = fourCC("tmpo")
	AtomTrkn   = fourCC("trkn")
)

// containerTypes is the set of box types whose children Walk will
// recurse into.
var containerTypes = map[FourCC]bool{
	TypeMoov: true,
	TypeTrak: true,
	TypeMdia: true,
	TypeMinf: true,
	TypeStbl: true,
	TypeUdta: true,
	TypeEdts: true,
	TypeMeta: true,
	TypeIlst: true,
	TypeFree: true,
}

// iTunes data-atom type codes (the "type" field of a `data` sub-atom).
const (
	DataTypeImplicit = 0  // binary / implicit, used for trkn and free-form binary payloads
	DataTypeUTF8     = 1  // UTF-8 text
	DataTypeJPEG     = 13
	DataTypePNG      = 14
	DataTypeInteger  = 21 // big-endian signed integer, width implied by payload length
)

func beUint32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }
func beUint64(b []byte) uint64 { return binary.BigEndian.Uint64(b) }
