// Package factory provides a small generic registry for building
// modules from configuration. A module is named by a type string and
// configured through a map of raw settings that factories decode into
// typed structs.
//
// Both metrics sinks and routing providers register themselves here:
//
//	reg := factory.NewRegistry[geo.Geocoder]()
//	reg.Register("static", func(conf map[string]any) (geo.Geocoder, error) {
//	    var c struct {
//	        Lat float64 `json:"lat"`
//	        Lng float64 `json:"lng"`
//	    }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return geo.StaticGeocoder{Coordinate: model.Coordinate{Lat: c.Lat, Lng: c.Lng}}, nil
//	})
package factory
