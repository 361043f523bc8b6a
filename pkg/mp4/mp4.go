// Package mp4 parses, decodes, and surgically edits ISO-BMFF (MP4/M4A)
// containers without building a mutable, back-pointer-laden box tree:
// every mutation locates the relevant bytes, splices a rebuilt box in
// place, and rewrites the affected chunk-offset tables in a single
// pass. See Parse/ParseTree for reading, DecodeSampleTable for sample
// tables, ExtractTrack/ExtractAllTracks for stem extraction, and
// PutIlstAtom/WriteItunesText/WriteFreeform/WriteStemJSON for editing.
package mp4
