// Command imdbeps builds a Parquet dataset of TV episodes from the public
// IMDb dataset snapshots.
package main

func main() {
	Execute()
}
