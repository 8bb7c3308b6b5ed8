// Package pileup implements the parallel chunk pipeline at the core of the
// sambamba pileup driver: it splits the genomic intervals covered by a BAM
// file into overlapping chunks, farms each chunk out to an external
// mpileup/caller pipeline through a named pipe, and reassembles the
// external tools' output into a single ordered stream.
//
// The package does not itself parse BAM files, BED files, or BCF/VCF
// bodies; it consumes an ordered read iterator (see Chunker), a region
// parser (see the sibling interval package) and a spool codec (see Codec),
// treating all three as external collaborators.
package pileup
