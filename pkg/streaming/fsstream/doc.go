/*
Package fsstream turns files into stream endpoints and copies files through
a pump.

Files are addressed by path on a lesiw.io/fs filesystem, so the same code runs
against the local disk (osfs) or an in-memory tree (memfs). Open returns a
readable stream of chunks and Create returns a writable stream backed by an
AsyncWriter. Both apply gzip or zstd compression chosen from the file
extension unless Options.Compression says otherwise.

Copy is the callback form of a copy and CopyBlocking waits for it:

	fsys, _ := osfs.New(".")
	res, err := fsstream.CopyBlocking(ctx, fsys, "access.log", "access.log.zst", fsstream.Options{})
	if err != nil {
		return err
	}
	fmt.Println(res.Chunks, res.Bytes)

A copy owns its pump: it stops the pump and closes both files when the
source ends, fails, or ctx is cancelled. CopyAll runs several copies with a
bounded number in flight.
*/
package fsstream
