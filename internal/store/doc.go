// Package store opens named objects as seekable resources for byte-range serving.
//
// Two backends are provided:
//   - [LocalStore] serves files below a root directory. Each open object holds
//     a shared OS-level lock (flock) until it is closed, so writers that take
//     an exclusive lock never replace a file mid-response.
//   - [BucketStore] serves objects from any gocloud.dev/blob bucket
//     (file://, mem://, s3://, gs://). Seeking reopens a range reader at the
//     new offset.
//
// Both return an [Object], which is a byterange.Resource plus metadata:
//
//	obj, err := st.Open(ctx, "videos/intro.mp4")
//	if err != nil {
//	    return err
//	}
//	defer obj.Close()
//	byterange.Respond(w, obj, byterange.Options{Name: obj.Info.Name, ContentType: obj.Info.ContentType})
//
// Content types come from the backend, then the file extension, then
// magic-number sniffing of the first bytes.
package store
