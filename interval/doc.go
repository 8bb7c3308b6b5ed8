/*Package interval loads the BED region file behind sambamba-pileup's
  -L/--regions flag and answers whether a genomic range intersects it.
  Overlapping and touching BED intervals are merged into one disjoint,
  sorted union per reference sequence, so a single ordered scan over the
  merged intervals is enough to test any chunk boundary the Dispatcher
  produces. It assumes every position fits in a PosType, which is currently
  defined as int32 since that's what BAM files are limited to.
*/
package interval
