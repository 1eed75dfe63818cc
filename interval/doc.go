/*Package interval provides a sorted endpoint index over genomic coordinates,
  used by candidate generation to test whether a candidate region already
  falls inside a region verified earlier for the same read.
  It assumes every position fits in a PosType, which is currently defined as
  int32 since that's what BAM files are limited to.
*/
package interval
